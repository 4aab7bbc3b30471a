package zcldef

import (
	"encoding/json"
	"fmt"
	"os"
)

type jsonZclMap map[string]jsonClusterDefinition

type jsonClusterDefinition struct {
	ID               uint16
	Attributes       map[string]AttributeDefinition
	Commands         map[string]CommandDefinition
	CommandsResponse map[string]CommandsResponseDefinition
}

func loadFromFile(filename string) (map[uint16]ClusterDefinition, error) {
	jsonBuf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ZCL definition file %v: %w", filename, err)
	}

	return parse(jsonBuf)
}

func parse(jsonBuf []byte) (map[uint16]ClusterDefinition, error) {
	var jsonLoadedMap jsonZclMap
	if err := json.Unmarshal(jsonBuf, &jsonLoadedMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ZCL definition: %w", err)
	}

	ret := make(map[uint16]ClusterDefinition, len(jsonLoadedMap))
	for clusterName, jsonClusterDef := range jsonLoadedMap {
		if other, ok := ret[jsonClusterDef.ID]; ok {
			return nil, fmt.Errorf("clusters '%v' and '%v' share id %d", other.Name, clusterName, jsonClusterDef.ID)
		}

		attr := make(map[uint16]AttributeDefinition, len(jsonClusterDef.Attributes))
		for attrName, a := range jsonClusterDef.Attributes {
			a.Name = attrName
			attr[a.ID] = a
		}
		cmd := make(map[uint16]CommandDefinition, len(jsonClusterDef.Commands))
		for cmdName, c := range jsonClusterDef.Commands {
			c.Name = cmdName
			cmd[c.ID] = c
		}
		cmdResp := make(map[uint16]CommandsResponseDefinition, len(jsonClusterDef.CommandsResponse))
		for cmdRespName, cr := range jsonClusterDef.CommandsResponse {
			cr.Name = cmdRespName
			cmdResp[cr.ID] = cr
		}

		ret[jsonClusterDef.ID] = ClusterDefinition{
			ID:               jsonClusterDef.ID,
			Name:             clusterName,
			Attributes:       attr,
			Commands:         cmd,
			CommandsResponse: cmdResp,
		}
	}

	return ret, nil
}
