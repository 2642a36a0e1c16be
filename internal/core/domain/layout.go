package domain

const (
	// FabFileName is the name of the project configuration file.
	FabFileName = "fab.yaml"

	// DefaultOutDirName is the output directory used when none is configured.
	DefaultOutDirName = "dist"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)
