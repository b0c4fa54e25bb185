// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchema is built once; CompileString never touches the network,
// unlike a URL-keyed jsonschema.Compile, so it is safe to share.
var compiledSchema = func() *jsonschema.Schema {
	s, err := jsonschema.CompileString("config.json", configSchema)
	if err != nil {
		panic(err)
	}
	return s
}()

// Validate checks raw config JSON against configSchema before it is
// decoded into a Config.
func Validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return compiledSchema.Validate(v)
}
