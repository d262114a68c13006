package git

import "os"

// Identity used for any object git authors on our behalf.
const (
	AuthorName  = "git-nomad"
	AuthorEmail = "git-nomad@invalid"
	AuthorDate  = "1970-01-01T00:00:00"
)

// hermeticOverrides keep system, global and user config out of every git
// invocation, and pin the identity of anything git might author.
var hermeticOverrides = []string{
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_NOGLOBAL=1",
	"HOME=",
	"XDG_CONFIG_HOME=",
	"GIT_AUTHOR_NAME=" + AuthorName,
	"GIT_AUTHOR_EMAIL=" + AuthorEmail,
	"GIT_AUTHOR_DATE=" + AuthorDate,
	"GIT_COMMITTER_NAME=" + AuthorName,
	"GIT_COMMITTER_EMAIL=" + AuthorEmail,
	"GIT_COMMITTER_DATE=" + AuthorDate,
}

// HermeticEnv returns the current environment with the hermetic overrides
// appended. exec uses the last value of a duplicated key, so the overrides win.
func HermeticEnv() []string {
	env := os.Environ()
	result := make([]string, 0, len(env)+len(hermeticOverrides))
	result = append(result, env...)
	result = append(result, hermeticOverrides...)
	return result
}
