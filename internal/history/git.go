package history

import (
	git "github.com/go-git/go-git/v5"
)

// HeadCommit resolves the current HEAD commit hash for the repository
// containing dir. Runs outside a repository are stamped with an empty
// commit; history stays useful either way.
func HeadCommit(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
