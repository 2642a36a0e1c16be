package domain

import "go.trai.ch/zerr"

var (
	// ErrModuleNotFound is returned when an import specifier cannot be
	// resolved to a file on disk. Fatal for the current build.
	ErrModuleNotFound = zerr.New("module not found")

	// ErrTransformFailed is returned when the transpiler or a compiler
	// rejected its input. Fatal for the current build pass.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrAborted marks work cancelled because a new build superseded it.
	// Non-fatal; swallowed except at debug level.
	ErrAborted = zerr.New("build aborted")

	// ErrPipelineFailed is returned when a stage failed inside the pipeline.
	ErrPipelineFailed = zerr.New("pipeline stage failed")

	// ErrCollaboratorDegraded marks an optional optimization step that
	// failed; the original bytes are copied through instead.
	ErrCollaboratorDegraded = zerr.New("collaborator degraded, copying original")

	// ErrEntryNotFound is returned when the configured entry module does not exist.
	ErrEntryNotFound = zerr.New("entry module not found")

	// ErrUnknownStrategy is returned for an unrecognized bundle strategy.
	ErrUnknownStrategy = zerr.New("unknown bundle strategy")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when no fab.yaml exists in the project.
	ErrConfigNotFound = zerr.New("could not find fab.yaml")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrOutputWriteFailed is returned when an output artifact cannot be written.
	ErrOutputWriteFailed = zerr.New("failed to write output artifact")

	// ErrStaleCleanupFailed is returned when a superseded hashed artifact
	// cannot be removed.
	ErrStaleCleanupFailed = zerr.New("failed to remove stale artifact")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")
)
