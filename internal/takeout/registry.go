package takeout

// Block is one extracted snippet keyed by its LocationKey
type Block struct {
	Key  string // "header+0:12:4"
	Text string // Compiled and formatted CSS
}

// blockSet is an insertion-ordered map from LocationKey to compiled text.
// Updating an existing key keeps its original position.
type blockSet struct {
	index  map[string]int
	blocks []Block
}

func newBlockSet() *blockSet {
	return &blockSet{index: make(map[string]int)}
}

func (s *blockSet) put(key, text string) {
	if i, ok := s.index[key]; ok {
		s.blocks[i].Text = text
		return
	}
	s.index[key] = len(s.blocks)
	s.blocks = append(s.blocks, Block{Key: key, Text: text})
}

// remove drops key and shifts later blocks up one position
func (s *blockSet) remove(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	delete(s.index, key)
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	for j := i; j < len(s.blocks); j++ {
		s.index[s.blocks[j].Key] = j
	}
}

func (s *blockSet) get(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.blocks[i].Text, true
}

func (s *blockSet) list() []Block {
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Registry is the authoritative store of extracted blocks for the process
type Registry struct {
	globals *blockSet
	scoped  *blockSet
	updates int // registrations since the last TakeUpdates
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		globals: newBlockSet(),
		scoped:  newBlockSet(),
	}
}

// PutGlobal stores or overwrites a global block
func (r *Registry) PutGlobal(key, text string) {
	r.globals.put(key, text)
	r.updates++
}

// PutScoped stores or overwrites a scoped block
func (r *Registry) PutScoped(key, text string) {
	r.scoped.put(key, text)
	r.updates++
}

// Global returns the global block stored at key
func (r *Registry) Global(key string) (string, bool) {
	return r.globals.get(key)
}

// Scoped returns the scoped block stored at key
func (r *Registry) Scoped(key string) (string, bool) {
	return r.scoped.get(key)
}

// Globals returns global blocks in first-seen order
func (r *Registry) Globals() []Block {
	return r.globals.list()
}

// ScopedBlocks returns scoped blocks in first-seen order
func (r *Registry) ScopedBlocks() []Block {
	return r.scoped.list()
}

// Len returns the total number of blocks
func (r *Registry) Len() int {
	return len(r.globals.blocks) + len(r.scoped.blocks)
}

// Updates returns the registrations since the last TakeUpdates without resetting
func (r *Registry) Updates() int {
	return r.updates
}

// TakeUpdates returns and resets the update counter
func (r *Registry) TakeUpdates() int {
	n := r.updates
	r.updates = 0
	return n
}
