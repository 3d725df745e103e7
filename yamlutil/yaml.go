// Package yamlutil lets the inflatelib tools take their flag defaults from
// a YAML config file.
package yamlutil

import (
	"flag"
	"fmt"

	"gopkg.in/yaml.v2"
)

// SetFlagsFromYaml fills in any flags the command line left unset from a
// YAML mapping of flag names to values:
//
//	out: extracted/
//	log-level: DEBUG
//
// Every key must name a registered flag; an unknown key is an error, so a
// typo in a config file cannot silently do nothing. Flags given explicitly
// on the command line always win over the file.
func SetFlagsFromYaml(fs *flag.FlagSet, rawYaml []byte) error {
	var conf map[string]string
	if err := yaml.Unmarshal(rawYaml, &conf); err != nil {
		return err
	}

	fromCommandLine := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		fromCommandLine[f.Name] = true
	})

	for name, val := range conf {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("config key %q does not name a flag", name)
		}
		if fromCommandLine[name] {
			continue
		}
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("invalid value %q for %s: %v", val, name, err)
		}
	}
	return nil
}
