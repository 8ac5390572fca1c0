package authoring

import "opsdeck/internal/types"

// State is the serializable form of the ledger, used by draft persistence.
type State struct {
	Groups  []GroupState                `json:"groups"`
	Old     map[string]types.TaskUpdate `json:"old,omitempty"`
	Added   map[string]types.NewTask    `json:"added,omitempty"`
	Deleted []string                    `json:"deleted,omitempty"`
}

// GroupState pairs a group key with its visible tasks, preserving order.
type GroupState struct {
	Key   GroupKey     `json:"key"`
	Tasks []types.Task `json:"tasks"`
}

// State captures the full ledger contents.
func (l *Ledger) State() State {
	s := State{
		Old:     make(map[string]types.TaskUpdate, len(l.old)),
		Added:   make(map[string]types.NewTask, len(l.added)),
		Deleted: append([]string{}, l.deleted...),
	}
	for _, key := range l.keys {
		s.Groups = append(s.Groups, GroupState{Key: key, Tasks: append([]types.Task{}, l.groups[key]...)})
	}
	for id, u := range l.old {
		s.Old[id] = u
	}
	for id, n := range l.added {
		s.Added[id] = n
	}
	return s
}

// RestoreState replaces the ledger contents with a captured state.
func (l *Ledger) RestoreState(s State) {
	l.Clear()
	for _, g := range s.Groups {
		l.ensureGroup(g.Key)
		l.groups[g.Key] = append([]types.Task{}, g.Tasks...)
	}
	for id, u := range s.Old {
		l.old[id] = u
	}
	for id, n := range s.Added {
		l.added[id] = n
	}
	l.deleted = append([]string{}, s.Deleted...)
}
