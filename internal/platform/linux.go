package platform

// linuxLayout follows the freedesktop.org trash and XDG user-dir conventions
func linuxLayout() Layout {
	return Layout{
		TrashFiles: ".local/share/Trash/files",
		UserDirs: []string{
			"Downloads",
			"Documents",
			"Videos",
			"Pictures",
			"Desktop",
		},
		LogDir: "/var/log",
	}
}
