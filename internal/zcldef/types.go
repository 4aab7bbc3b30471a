package zcldef

type ClusterDefinition struct {
	ID               uint16
	Name             string
	Attributes       map[uint16]AttributeDefinition
	Commands         map[uint16]CommandDefinition
	CommandsResponse map[uint16]CommandsResponseDefinition
}

type AttributeDefinition struct {
	ID   uint16
	Name string
	Type byte
}

// CommandDefinition describes a cluster command. Each Parameters entry is a
// pair of argument name and the field of the zcl command struct it fills.
type CommandDefinition struct {
	ID         uint16
	Name       string
	Parameters [][]string
}

type CommandsResponseDefinition struct {
	ID         uint16
	Name       string
	Parameters [][]string
}

func (c ClusterDefinition) CommandByName(name string) (CommandDefinition, bool) {
	for _, cmd := range c.Commands {
		if cmd.Name == name {
			return cmd, true
		}
	}

	return CommandDefinition{}, false
}

func (c ClusterDefinition) AttributeByName(name string) (AttributeDefinition, bool) {
	for _, attr := range c.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}

	return AttributeDefinition{}, false
}

// Field returns the struct field bound to the argument name.
func (c CommandDefinition) Field(argument string) (string, bool) {
	for _, p := range c.Parameters {
		if len(p) == 2 && p[0] == argument {
			return p[1], true
		}
	}

	return "", false
}
