package extract

import (
	"github.com/ha1tch/ecotour/pkg/intent"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

// Record is the structured form of a write request. It is one of
// *CreateRecord, *UpdateRecord, *DeleteRecord or *RelationRecord.
type Record interface {
	Intent() intent.Intent
}

// CreateRecord asks for a new entity
type CreateRecord struct {
	Class      *ontology.Class
	Attributes map[string]interface{}
}

// UpdateRecord asks to overwrite attributes of the entity named Name
type UpdateRecord struct {
	Class      *ontology.Class
	Name       string
	Attributes map[string]interface{}
}

// DeleteRecord asks to remove the entity named Name
type DeleteRecord struct {
	Class *ontology.Class
	Name  string
}

// RelationRecord asserts Subject -Relation-> Object between existing entities
type RelationRecord struct {
	SubjectClass *ontology.Class
	SubjectName  string
	Relation     string
	ObjectClass  *ontology.Class
	ObjectName   string
}

func (*CreateRecord) Intent() intent.Intent   { return intent.Create }
func (*UpdateRecord) Intent() intent.Intent   { return intent.Update }
func (*DeleteRecord) Intent() intent.Intent   { return intent.Delete }
func (*RelationRecord) Intent() intent.Intent { return intent.Relation }
