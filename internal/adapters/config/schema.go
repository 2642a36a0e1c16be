package config

// Fabfile represents the structure of the fab.yaml configuration file.
// Pointer fields distinguish "absent" from an explicit false.
type Fabfile struct {
	Version   string   `yaml:"version"`
	Root      string   `yaml:"root"`
	Entry     string   `yaml:"entry"`
	Out       string   `yaml:"out"`
	Strategy  string   `yaml:"strategy"`
	Target    string   `yaml:"target"`
	SourceMap string   `yaml:"sourcemap"`
	Minify    *bool    `yaml:"minify"`
	Externals []string `yaml:"externals"`
	Styles    []string `yaml:"styles"`
	Markup    []string `yaml:"markup"`
	Assets    []string `yaml:"assets"`
	Static    string   `yaml:"static"`
	Public    string   `yaml:"public"`
	Cache     *bool    `yaml:"cache"`
	Parallel  *bool    `yaml:"parallel"`
	Debounce  string   `yaml:"debounce"`
}
