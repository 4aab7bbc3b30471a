package zcldef

import (
	_ "embed"
)

//go:embed zcldef.json
var defaultDefinitions []byte

type ZCLDefService interface {
	GetById(clusterId uint16) ClusterDefinition
	GetByName(name string) (ClusterDefinition, bool)
}

type zclDefService struct {
	byID   map[uint16]ClusterDefinition
	byName map[string]uint16
}

func (zd *zclDefService) GetById(clusterId uint16) ClusterDefinition {
	return zd.byID[clusterId]
}

func (zd *zclDefService) GetByName(name string) (ClusterDefinition, bool) {
	id, ok := zd.byName[name]
	if !ok {
		return ClusterDefinition{}, false
	}

	return zd.byID[id], true
}

// New loads cluster definitions from filename, or the built-in set when filename is empty.
func New(filename string) (ZCLDefService, error) {
	var (
		defs map[uint16]ClusterDefinition
		err  error
	)

	if filename == "" {
		defs, err = parse(defaultDefinitions)
	} else {
		defs, err = loadFromFile(filename)
	}
	if err != nil {
		return nil, err
	}

	return newService(defs), nil
}

func newService(defs map[uint16]ClusterDefinition) *zclDefService {
	byName := make(map[string]uint16, len(defs))
	for id, def := range defs {
		byName[def.Name] = id
	}

	return &zclDefService{
		byID:   defs,
		byName: byName,
	}
}
