package catalog

import (
	proto "github.com/gogo/protobuf/proto"
)

// CatalogState is the catalog header, stored under gCatalogStateKey.
type CatalogState struct {
	MajorVers   int32    `protobuf:"varint,1,opt,name=MajorVers,proto3" json:"MajorVers,omitempty"`
	MinorVers   int32    `protobuf:"varint,2,opt,name=MinorVers,proto3" json:"MinorVers,omitempty"`
	NumMachines []uint64 `protobuf:"varint,3,rep,packed,name=NumMachines,proto3" json:"NumMachines,omitempty"`
}

func (m *CatalogState) Reset()         { *m = CatalogState{} }
func (m *CatalogState) String() string { return proto.CompactTextString(m) }
func (*CatalogState) ProtoMessage()    {}

func (m *CatalogState) GetNumMachines() []uint64 {
	if m != nil {
		return m.NumMachines
	}
	return nil
}

func init() {
	proto.RegisterType((*CatalogState)(nil), "tme.CatalogState")
}
