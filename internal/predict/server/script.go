// Package server holds the Python generation service run by the local predictor.
//
// The script expects torch and transformers to be importable. They are not bundled; point
// model.python_path at a site-packages directory that provides them.
package server

import _ "embed"

// GenerateScript serves POST /generate and GET /health for a seq2seq model on loopback.
//
//go:embed generate_service.py
var GenerateScript string

// ScriptName is the file name the script is written under before launch.
const ScriptName = "generate_service.py"
