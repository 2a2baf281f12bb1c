// Package completion provides shell completion over the local mirror
// for the view subcommand, plus an installer that hooks it into the
// user's shell rc file.
package completion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const zshInstall = `
# For ragesync view completion
_ragesync_comp() {
	compadd $(ragesync complete "$words[3]")
}

compdef _ragesync_comp ragesync view
`

const bashInstall = `
# For ragesync view completion
_ragesync_comp() {
	COMPREPLY=($(ragesync complete "${COMP_WORDS[COMP_CWORD]}"))
}

complete -o nospace -F _ragesync_comp ragesync view
`

// List writes one completion candidate per line for the partial
// day/time/file path in input, resolved against the mirror directory.
func List(fs afero.Fs, mirror, input string, out io.Writer) {
	dir := mirror
	for _, part := range strings.Split(input, "/") {
		dir = filepath.Join(dir, part)
	}

	if ok, _ := afero.DirExists(fs, dir); ok {
		// The input names an existing directory, so every child is a
		// candidate.
		infos, err := afero.ReadDir(fs, dir)
		if err != nil {
			return
		}
		for _, info := range infos {
			if input == "" || strings.HasSuffix(input, "/") {
				fmt.Fprintf(out, "%s%s\n", input, info.Name())
			} else {
				fmt.Fprintf(out, "%s/%s\n", input, info.Name())
			}
		}
		return
	}

	parent := filepath.Dir(dir)
	if ok, _ := afero.DirExists(fs, parent); !ok {
		return
	}
	prefix := filepath.Base(dir)

	infos, err := afero.ReadDir(fs, parent)
	if err != nil {
		return
	}
	for _, info := range infos {
		if strings.HasPrefix(info.Name(), prefix) {
			fmt.Fprintf(out, "%s%s\n", input, info.Name()[len(prefix):])
		}
	}
}

// Install appends the completion snippet for the current shell to the
// user's rc file after an interactive confirmation. Only zsh and bash
// are supported.
func Install(in io.Reader, out io.Writer) error {
	shell := os.Getenv("SHELL")

	var rcFile, snippet string
	switch {
	case strings.Contains(shell, "zsh"):
		rcFile, snippet = ".zshrc", zshInstall
	case strings.Contains(shell, "bash"):
		rcFile, snippet = ".bashrc", bashInstall
	case shell == "":
		fmt.Fprintln(out, "The env var $SHELL is empty; aborting")
		return nil
	default:
		fmt.Fprintf(out, "Your shell (%s) is currently not supported :(\n", shell)
		return nil
	}

	fmt.Fprintf(out,
		"To install shell completion for ragesync, we need to append the following lines to your ~/%s:\n\x1b[1m%s\x1b[0m\nIs that ok? [y/n]\n",
		rcFile, snippet)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return nil
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(scanner.Text())), "y") {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locating home directory: %w", err)
	}
	path := filepath.Join(home, rcFile)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(snippet); err != nil {
		return fmt.Errorf("writing to %s: %w", path, err)
	}

	fmt.Fprintf(out, "Successfully installed completion :)\nRun \x1b[1msource ~/%s\x1b[0m to load it in right now.\n", rcFile)
	return nil
}
