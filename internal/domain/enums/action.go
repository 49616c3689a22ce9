package enums

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}
}
