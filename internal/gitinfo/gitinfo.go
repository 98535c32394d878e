// Package gitinfo reads the commit and branch a report was generated from.
package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Stamp identifies the checked-out revision.
type Stamp struct {
	Commit string
	Branch string // empty on a detached HEAD
	Dirty  bool
}

// Short returns the abbreviated commit hash.
func (s Stamp) Short() string {
	if len(s.Commit) > 7 {
		return s.Commit[:7]
	}
	return s.Commit
}

// Lookup finds the repository containing dir and reads its HEAD.
func Lookup(dir string) (*Stamp, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	stamp := &Stamp{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		stamp.Branch = head.Name().Short()
	}

	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			stamp.Dirty = !status.IsClean()
		}
	}
	return stamp, nil
}
