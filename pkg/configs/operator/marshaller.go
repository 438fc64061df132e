package operator

import (
	"os"

	"gopkg.in/yaml.v3"
)

// load operator config from a file.
//
// returns *OperatorConfig, error:
//
//	When loading success, returns `(*OperatorConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadOperatorConfig(filepath string) (*OperatorConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

// Unmarshal parses and seals config content.
//
// this function CAN CAUSE PANIC if misconfiguration is found (see TrySeal).
func Unmarshal(conf []byte) (out *OperatorConfig, err error) {
	var _out *OperatorConfigMarshall
	err = yaml.Unmarshal(conf, &_out)
	if err != nil {
		return nil, err
	}
	out = TrySeal(_out)
	return out, nil
}
