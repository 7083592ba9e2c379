// Command sessionlint reports session.Struct fields whose default and Unset
// handling disagree.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/goliatone/go-session-state/pkg/lint"
)

func main() {
	singlechecker.Main(lint.Analyzer)
}
