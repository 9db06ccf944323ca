package util

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/google/go-jsonnet"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnmarshalConfigurationFromFile reads a Jsonnet file, evaluates it and
// unmarshals the output into a configuration structure. Fields that
// are not part of the structure are rejected, so that typos in
// configuration files are caught early.
func UnmarshalConfigurationFromFile(path string, configuration any) error {
	// Read configuration file from disk or from stdin.
	var jsonnetInput []byte
	var err error
	if path == "-" {
		jsonnetInput, err = io.ReadAll(os.Stdin)
	} else {
		jsonnetInput, err = os.ReadFile(path)
	}
	if err != nil {
		return StatusWrapf(status.Error(codes.InvalidArgument, err.Error()), "Failed to read file contents")
	}
	return UnmarshalConfigurationFromJsonnet(path, string(jsonnetInput), os.Environ(), configuration)
}

// UnmarshalConfigurationFromJsonnet evaluates a Jsonnet snippet and
// unmarshals the output into a configuration structure. Environment
// variables in "key=value" format are exposed through std.extVar().
func UnmarshalConfigurationFromJsonnet(filename, snippet string, environment []string, configuration any) error {
	vm := jsonnet.MakeVM()
	for _, env := range environment {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			return status.Errorf(codes.InvalidArgument, "Invalid environment variable: %#v", env)
		}
		vm.ExtVar(parts[0], parts[1])
	}

	jsonnetOutput, err := vm.EvaluateAnonymousSnippet(filename, snippet)
	if err != nil {
		return StatusWrap(status.Error(codes.InvalidArgument, err.Error()), "Failed to evaluate configuration")
	}

	decoder := json.NewDecoder(bytes.NewBufferString(jsonnetOutput))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(configuration); err != nil {
		return StatusWrap(status.Error(codes.InvalidArgument, err.Error()), "Failed to unmarshal configuration")
	}
	return nil
}
