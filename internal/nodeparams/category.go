package nodeparams

import (
	"strings"

	"golang.org/x/text/cases"
)

// Category decides which fields of a node document are persisted in its
// payload.
type Category int

const (
	Other Category = iota
	Material
	Energy
	Logic
	Sensor
	AI
	ScriptUnit
	GraphicElement
)

func (c Category) String() string {
	switch c {
	case Material:
		return "Material"
	case Energy:
		return "Energy"
	case Logic:
		return "Logic"
	case Sensor:
		return "Sensor"
	case AI:
		return "AI"
	case ScriptUnit:
		return "ScriptUnit"
	case GraphicElement:
		return "GraphicElement"
	}
	return "Other"
}

var categoryByType = map[string]Category{}

func init() {
	register := func(c Category, types ...string) {
		for _, t := range types {
			categoryByType[cases.Fold().String(t)] = c
		}
	}
	register(Material, "Material")
	register(Energy, "Energy")
	register(Logic,
		"Signal", "ByPass", "Vote", "Rs", "Not", "AndOr", "Delay", "Pulse",
		"ScriptLogic",
		"CustomUserLogic0", "CustomUserLogic1", "CustomUserLogic2", "CustomUserLogic3")
	register(Sensor,
		"TSensor", "PSensor", "LSensor", "CompSensor",
		"FSensor", "NvfSensor", "VfSensor", "DSensor")
	register(AI, "Aiuo")
	register(ScriptUnit, "ScriptUO")
	register(GraphicElement,
		"Rect", "Ellipse", "Path", "Text", "Cutter", "PositionInformation", "CustomVueNode")
}

// logicPrefixes mark custom node families that behave like logic blocks even
// when their exact type is not registered.
var logicPrefixes = []string{"CustomUserLogic", "CustomCustomerLogic", "CustomSysLogic"}

// CategoryOf maps a node type to its category, case-insensitively. Unit
// operations and unknown types are Other.
func CategoryOf(nodeType string) Category {
	if c, ok := categoryByType[cases.Fold().String(nodeType)]; ok {
		return c
	}
	return Other
}

// isLogicLike reports whether nodeType carries a custom logic prefix.
func isLogicLike(nodeType string) bool {
	fold := cases.Fold()
	t := fold.String(nodeType)
	for _, p := range logicPrefixes {
		if strings.HasPrefix(t, fold.String(p)) {
			return true
		}
	}
	return false
}
