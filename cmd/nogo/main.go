// Command nogo is a vet analyzer that keeps raw go statements inside
// core/spawn, so every thread the module starts is counted by a launcher.
package main

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

// allowedPackages may start goroutines directly.
var allowedPackages = []string{"core/spawn"}

var Analyzer = &analysis.Analyzer{
	Name: "nogo",
	Doc:  "forbids raw go statements outside core/spawn",
	Run:  run,
}

func main() {
	singlechecker.Main(Analyzer)
}

func allowed(pkgPath string) bool {
	for _, p := range allowedPackages {
		if pkgPath == p || strings.HasSuffix(pkgPath, "/"+p) {
			return true
		}
	}
	return false
}

func run(pass *analysis.Pass) (interface{}, error) {
	if allowed(pass.Pkg.Path()) {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Tests drive concurrency directly.
		if strings.HasSuffix(pass.Fset.Position(file.Pos()).Filename, "_test.go") {
			continue
		}
		ast.Inspect(file, func(n ast.Node) bool {
			if goStmt, ok := n.(*ast.GoStmt); ok {
				pass.Reportf(goStmt.Pos(),
					"raw 'go' statement forbidden - use spawn.Spawn() from core/spawn")
			}
			return true
		})
	}
	return nil, nil
}
