package platform

// macOSLayout returns the Finder trash and the standard home folders
func macOSLayout() Layout {
	return Layout{
		TrashFiles: ".Trash",
		UserDirs: []string{
			"Downloads",
			"Documents",
			"Movies",
			"Pictures",
			"Desktop",
		},
		LogDir: "/var/log",
	}
}
