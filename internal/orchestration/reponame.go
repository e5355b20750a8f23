package orchestration

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// DeriveRepoName returns the repository name for a (task, email) pair. The
// derivation is purely deterministic so that update rounds resolve the exact
// repository the first round created; there is no time-based component.
func DeriveRepoName(taskID, email string) string {
	return fmt.Sprintf("llm-app-%s-%s", shortHash(taskID), shortHash(email))
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:6]
}
