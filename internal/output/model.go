package output

import (
	"gopkg.in/yaml.v3"
)

type (
	Model struct {
		Networks []Network `yaml:"networks"`
	}

	Network struct {
		Name      string     `yaml:"name"`
		ChainID   uint64     `yaml:"chain-id"`
		RPCURL    string     `yaml:"rpc-url,omitempty"`
		Contracts []Contract `yaml:"contracts"`
	}

	Contract struct {
		Name            string             `yaml:"name"`
		Address         SingleQuotedString `yaml:"address"`
		DeploymentBlock SingleQuotedString `yaml:"deployment-block"`
	}

	// SingleQuotedString keeps hex addresses from being read back as integers by YAML 1.1 parsers
	SingleQuotedString string
)

func (s SingleQuotedString) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(s),
	}
	return node, nil
}
