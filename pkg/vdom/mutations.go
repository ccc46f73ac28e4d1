package vdom

// Mutations records a batch of edits. The zero value is ready to use.
type Mutations struct {
	// Edits in emission order.
	Edits []Mutation

	// Templates lists each template referenced by a LoadTemplate in this batch,
	// in first-use order.
	Templates []*Template

	seen map[*Template]struct{}
}

var _ MutationSink = (*Mutations)(nil)

// Len returns the number of recorded edits.
func (m *Mutations) Len() int { return len(m.Edits) }

// Reset clears the batch, keeping allocated capacity.
func (m *Mutations) Reset() {
	m.Edits = m.Edits[:0]
	m.Templates = m.Templates[:0]
	clear(m.seen)
}

// Take returns the recorded edits and resets the batch.
func (m *Mutations) Take() []Mutation {
	out := make([]Mutation, len(m.Edits))
	copy(out, m.Edits)
	m.Reset()
	return out
}

// Strings renders every edit with Mutation.String.
func (m *Mutations) Strings() []string {
	out := make([]string, len(m.Edits))
	for i, e := range m.Edits {
		out[i] = e.String()
	}
	return out
}

// ReplayTo applies every recorded edit to sink in order.
func (m *Mutations) ReplayTo(sink MutationSink) {
	for _, e := range m.Edits {
		Apply(sink, e)
	}
}

func (m *Mutations) push(e Mutation) {
	m.Edits = append(m.Edits, e)
}

func copyPath(p []uint8) []uint8 {
	if p == nil {
		return nil
	}
	out := make([]uint8, len(p))
	copy(out, p)
	return out
}

func (m *Mutations) AppendChildren(id ElementID, n int) {
	m.push(Mutation{Op: OpAppendChildren, ID: id, M: n})
}

func (m *Mutations) AssignNodeID(path []uint8, id ElementID) {
	m.push(Mutation{Op: OpAssignNodeID, Path: copyPath(path), ID: id})
}

func (m *Mutations) CreatePlaceholder(id ElementID) {
	m.push(Mutation{Op: OpCreatePlaceholder, ID: id})
}

func (m *Mutations) CreateTextNode(value string, id ElementID) {
	m.push(Mutation{Op: OpCreateTextNode, Text: value, ID: id})
}

func (m *Mutations) HydrateText(path []uint8, value string, id ElementID) {
	m.push(Mutation{Op: OpHydrateText, Path: copyPath(path), Text: value, ID: id})
}

func (m *Mutations) LoadTemplate(t *Template, index int, id ElementID) {
	if m.seen == nil {
		m.seen = make(map[*Template]struct{})
	}
	if _, ok := m.seen[t]; !ok {
		m.seen[t] = struct{}{}
		m.Templates = append(m.Templates, t)
	}
	m.push(Mutation{Op: OpLoadTemplate, Template: t, Index: index, ID: id})
}

func (m *Mutations) ReplaceNodeWith(id ElementID, n int) {
	m.push(Mutation{Op: OpReplaceNodeWith, ID: id, M: n})
}

func (m *Mutations) ReplacePlaceholder(path []uint8, n int) {
	m.push(Mutation{Op: OpReplacePlaceholder, Path: copyPath(path), M: n})
}

func (m *Mutations) InsertNodesAfter(id ElementID, n int) {
	m.push(Mutation{Op: OpInsertNodesAfter, ID: id, M: n})
}

func (m *Mutations) InsertNodesBefore(id ElementID, n int) {
	m.push(Mutation{Op: OpInsertNodesBefore, ID: id, M: n})
}

func (m *Mutations) SetAttribute(name, namespace string, value AttrValue, id ElementID) {
	m.push(Mutation{Op: OpSetAttribute, Name: name, Namespace: namespace, Value: value, ID: id})
}

func (m *Mutations) SetNodeText(value string, id ElementID) {
	m.push(Mutation{Op: OpSetNodeText, Text: value, ID: id})
}

func (m *Mutations) CreateEventListener(name string, id ElementID) {
	m.push(Mutation{Op: OpCreateEventListener, Name: name, ID: id})
}

func (m *Mutations) RemoveEventListener(name string, id ElementID) {
	m.push(Mutation{Op: OpRemoveEventListener, Name: name, ID: id})
}

func (m *Mutations) RemoveNode(id ElementID) {
	m.push(Mutation{Op: OpRemoveNode, ID: id})
}

func (m *Mutations) PushRoot(id ElementID) {
	m.push(Mutation{Op: OpPushRoot, ID: id})
}

func (m *Mutations) PopRoot() {
	m.push(Mutation{Op: OpPopRoot})
}

// NoopSink discards every edit.
type NoopSink struct{}

var _ MutationSink = NoopSink{}

func (NoopSink) AppendChildren(ElementID, int)                     {}
func (NoopSink) AssignNodeID([]uint8, ElementID)                   {}
func (NoopSink) CreatePlaceholder(ElementID)                       {}
func (NoopSink) CreateTextNode(string, ElementID)                  {}
func (NoopSink) HydrateText([]uint8, string, ElementID)            {}
func (NoopSink) LoadTemplate(*Template, int, ElementID)            {}
func (NoopSink) ReplaceNodeWith(ElementID, int)                    {}
func (NoopSink) ReplacePlaceholder([]uint8, int)                   {}
func (NoopSink) InsertNodesAfter(ElementID, int)                   {}
func (NoopSink) InsertNodesBefore(ElementID, int)                  {}
func (NoopSink) SetAttribute(string, string, AttrValue, ElementID) {}
func (NoopSink) SetNodeText(string, ElementID)                     {}
func (NoopSink) CreateEventListener(string, ElementID)             {}
func (NoopSink) RemoveEventListener(string, ElementID)             {}
func (NoopSink) RemoveNode(ElementID)                              {}
func (NoopSink) PushRoot(ElementID)                                {}
func (NoopSink) PopRoot()                                          {}
