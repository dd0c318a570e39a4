package detection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"gopkg.in/yaml.v3"
)

// labelMapDescriptor describes object_detection.protos.StringIntLabelMap, the
// text format used by TensorFlow object detection label maps. Only the fields
// needed for a category index are declared; the rest are discarded on parse.
var labelMapDescriptor = mustLabelMapDescriptor()

func mustLabelMapDescriptor() protoreflect.MessageDescriptor {
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	field := func(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(num),
			Label:  optional,
			Type:   typ.Enum(),
		}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("object_detection/protos/string_int_label_map.proto"),
		Package: proto.String("object_detection.protos"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("StringIntLabelMapItem"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("id", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					field("display_name", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: proto.String("StringIntLabelMap"),
				Field: []*descriptorpb.FieldDescriptorProto{{
					Name:     proto.String("item"),
					Number:   proto.Int32(1),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
					TypeName: proto.String(".object_detection.protos.StringIntLabelMapItem"),
				}},
			},
		},
	}

	fd, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		panic(fmt.Sprintf("label map descriptor: %v", err))
	}
	return fd.Messages().ByName("StringIntLabelMap")
}

// ParseLabelMap reads a text-format label map into a category index. The
// display name is preferred over the name when both are present.
func ParseLabelMap(data []byte) (map[int32]string, error) {
	msg := dynamicpb.NewMessage(labelMapDescriptor)
	if err := (prototext.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to parse label map: %w", err)
	}

	itemField := labelMapDescriptor.Fields().ByName("item")
	itemDesc := itemField.Message()
	idField := itemDesc.Fields().ByName("id")
	nameField := itemDesc.Fields().ByName("name")
	displayField := itemDesc.Fields().ByName("display_name")

	index := make(map[int32]string)
	items := msg.Get(itemField).List()
	for i := 0; i < items.Len(); i++ {
		item := items.Get(i).Message()
		if !item.Has(idField) {
			return nil, fmt.Errorf("label map item %d has no id", i)
		}
		id := int32(item.Get(idField).Int())
		name := item.Get(nameField).String()
		if item.Has(displayField) {
			name = item.Get(displayField).String()
		}
		index[id] = name
	}
	return index, nil
}

// LoadLabelMap reads a category index from disk. Files ending in .yaml or
// .yml hold a plain id: name mapping; anything else is parsed as text format.
func LoadLabelMap(path string) (map[int32]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label map: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var index map[int32]string
		if err := yaml.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("failed to parse label map: %w", err)
		}
		if index == nil {
			index = make(map[int32]string)
		}
		return index, nil
	default:
		return ParseLabelMap(data)
	}
}
