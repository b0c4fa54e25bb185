// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// configSchema validates the recognised top-level fields from the config
// table before the JSON is decoded into Config, rejecting malformed values
// (wrong type, out-of-range enum) with a precise pointer into the document.
const configSchema = `{
  "type": "object",
  "properties": {
    "input": {
      "description": "file or list of files; globs allowed by the fetch layer",
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "output": {
      "description": "endpoint URL (local path or s3://...)",
      "type": "string"
    },
    "tmp": {
      "description": "must be local-writable",
      "type": "string"
    },
    "threads": {
      "description": "combined worker count, or [work, clip]",
      "oneOf": [
        {"type": "integer", "minimum": 1},
        {"type": "array", "items": {"type": "integer", "minimum": 0}, "minItems": 2, "maxItems": 2}
      ]
    },
    "splits": {"type": "integer", "minimum": 1},
    "overflowDepth": {"type": "integer", "minimum": 0},
    "overflowRatio": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
    "dataStorage": {"enum": ["laszip", "binary"]},
    "hierarchyStorage": {"enum": ["json"]},
    "sleepCount": {"type": "integer", "minimum": 0},
    "trustHeaders": {"type": "boolean"},
    "force": {"type": "boolean"},
    "scale": {},
    "offset": {},
    "reprojection": {
      "type": "object",
      "properties": {
        "in": {"type": "string"},
        "out": {"type": "string"},
        "hammer": {"type": "boolean"}
      },
      "required": ["in", "out"]
    },
    "subset": {
      "type": "object",
      "properties": {
        "id": {"type": "integer", "minimum": 0},
        "of": {"type": "integer", "minimum": 1}
      },
      "required": ["id", "of"]
    },
    "verbose": {"type": "boolean"}
  },
  "required": ["input", "output"]
}`
