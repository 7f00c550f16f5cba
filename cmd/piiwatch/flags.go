package main

import "flag"

type appFlags struct {
	globalConfigFile string
	showVersion      bool
}

func parseFlags() appFlags {
	var f appFlags
	var alias string

	flag.StringVar(&f.globalConfigFile, "globalconfig", "", "Path to the global YAML/JSON configuration file. If not set, searches default locations.")
	flag.StringVar(&alias, "gc", "", "Alias for --globalconfig")
	flag.BoolVar(&f.showVersion, "version", false, "Print the version and exit")
	flag.Parse()

	if f.globalConfigFile == "" && alias != "" {
		f.globalConfigFile = alias
	}
	return f
}
