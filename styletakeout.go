// Package styletakeout moves CSS written in JS/TS template literals into one
// stylesheet at build time.
//
// Source files use three tags:
//
//	const primary = decl`#3b82f6`;
//	injectGlobal`body { margin: 0; }`;
//	const button = css`color: ${primary}; &:hover { opacity: .8; }`;
//
// After extraction the decl and injectGlobal sites are gone, and button holds
// a class name such as "css-button+0:3:15". The compiled CSS for every site
// is written to a single output file, together with a side-car JSON map from
// short names to source paths.
//
// # Building
//
// Extract every matching file under a project root:
//
//	config := styletakeout.DefaultConfig()
//	config.Root = "."
//	config.Includes = []string{"src/**/*.{js,jsx,ts,tsx}"}
//	config.OutDir = "build/src"
//	result, err := styletakeout.Build(ctx, config)
//
// # Watching
//
// A Watcher re-extracts changed files against the same session, so short
// names and block positions in the stylesheet stay stable:
//
//	builder, err := styletakeout.NewBuilder(config)
//	watcher, err := styletakeout.NewWatcher(builder, os.Stdout)
//	watcher.Start(ctx)
//	defer watcher.Stop()
//
// # CLI Tool
//
// Install with:
//
//	go install github.com/nettybun/styletakeout/cmd/styletakeout@latest
package styletakeout
