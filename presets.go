package robot_arm

import "sort"

// Configuration is a full arm pose request: six joint angles and the gripper angle, in degrees.
type Configuration struct {
	Joints  [JointCount]int `json:"joints"`
	Gripper int             `json:"gripper"`
}

// Built-in preset names.
const (
	PresetHome    = "home"
	PresetPick    = "pick"
	PresetRest    = "rest"
	PresetService = "service"
)

// DefaultPresets returns the named configurations every arm knows.
func DefaultPresets() map[string]Configuration {
	return map[string]Configuration{
		PresetHome:    {Joints: [JointCount]int{0, 0, 0, 0, 0, 0}, Gripper: 0},
		PresetPick:    {Joints: [JointCount]int{0, -45, 90, 0, -45, 0}, Gripper: 30},
		PresetRest:    {Joints: [JointCount]int{0, 75, -110, 0, 35, 0}, Gripper: 0},
		PresetService: {Joints: [JointCount]int{90, 0, -90, 90, 0, 0}, Gripper: 15},
	}
}

func presetNames(presets map[string]Configuration) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
