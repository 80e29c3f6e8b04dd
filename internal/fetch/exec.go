package fetch

import (
	"bytes"
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
)

const outputTailBytes = 2000

// cmdResult summarizes one external downloader invocation. Only output
// tails are kept; downloaders can be extremely chatty.
type cmdResult struct {
	ExitCode   int
	StdoutTail string
	StderrTail string
}

// commandRunner executes an argv. Injectable so adapter tests never spawn
// real downloaders.
type commandRunner func(ctx context.Context, dir string, argv []string) cmdResult

func runCommand(ctx context.Context, dir string, argv []string) cmdResult {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		// surface the spawn/context error where there is no stderr
		if stderr.Len() == 0 {
			stderr.WriteString(err.Error())
		}
	}

	return cmdResult{
		ExitCode:   exitCode,
		StdoutTail: tail(stdout.String()),
		StderrTail: tail(stderr.String()),
	}
}

func tail(s string) string {
	if len(s) <= outputTailBytes {
		return s
	}
	return s[len(s)-outputTailBytes:]
}

// listFiles walks a download directory and returns all regular files,
// sorted. Used to diff what an adapter invocation actually produced.
func listFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// newFiles returns files present in after but not in before.
func newFiles(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, f := range before {
		seen[f] = struct{}{}
	}
	var added []string
	for _, f := range after {
		if _, ok := seen[f]; !ok {
			added = append(added, f)
		}
	}
	return added
}
