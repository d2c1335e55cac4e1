package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/verichains/chain-sandbox/contractmgr"
	"github.com/verichains/chain-sandbox/netmgr"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type appConfig struct {
	Network     netmgr.Config
	Contract    contractmgr.Config
	MetricsAddr string `toml:",omitempty"`
}

func loadTOMLConfig(filename string, conf interface{}) error {
	var err error
	var buf []byte
	if buf, err = os.ReadFile(filename); err == nil {
		err = tomlSettings.Unmarshal(buf, conf)
	}
	return err
}
