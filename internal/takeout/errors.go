package takeout

import (
	"errors"
	"fmt"
)

// Extraction errors. They are deterministic for a given input; nothing retries them.
var (
	ErrUnrecognizedBindingForm     = errors.New("unrecognized binding form")
	ErrUndefinedBinding            = errors.New("undefined binding")
	ErrUnsupportedReference        = errors.New("unsupported reference")
	ErrUnresolvedInterpolation     = errors.New("unresolved interpolation")
	ErrMissingKey                  = errors.New("missing key")
	ErrNotALeaf                    = errors.New("not a leaf value")
	ErrCircularAlias               = errors.New("circular alias")
	ErrUnresolvedShortNameConflict = errors.New("unresolved short name conflict")
)

// SiteError attaches the originating source location to an extraction failure
type SiteError struct {
	Loc  SourceLocation
	Kind SiteKind
	Err  error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Loc, e.Kind, e.Err)
}

func (e *SiteError) Unwrap() error {
	return e.Err
}

func siteError(site Site, err error) error {
	return &SiteError{Loc: site.Loc, Kind: site.Kind, Err: err}
}
