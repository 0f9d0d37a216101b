// discovery.go
package robot_arm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial/enumerator"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"
)

var DiscoveryModel = resource.NewModel("devrel", "robot-arm", "discovery")

const defaultPresetsFile = "robot_arm_presets.json"

func init() {
	resource.RegisterService(
		discovery.API,
		DiscoveryModel,
		resource.Registration[discovery.Service, *DiscoveryConfig]{
			Constructor: newArmDiscovery,
		})
}

// DiscoveryConfig is the configuration for the discovery service
type DiscoveryConfig struct {
	Baudrate  int `json:"baudrate,omitempty"`
	TimeoutMs int `json:"timeout_ms,omitempty"`
}

// Validate ensures the config is valid
func (cfg *DiscoveryConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Baudrate == 0 {
		cfg.Baudrate = defaultBaudrate
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = 500
	}
	return nil, nil, nil
}

// servoScanner lists the servo IDs that answer on a port.
type servoScanner func(ctx context.Context, port string) ([]int, error)

type armDiscovery struct {
	resource.Named
	resource.AlwaysRebuild
	resource.TriviallyCloseable
	logger logging.Logger

	listPorts func() []string
	scan      servoScanner
	dataDir   string
}

func newArmDiscovery(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (discovery.Service, error) {
	cfg, err := resource.NativeConfig[*DiscoveryConfig](conf)
	if err != nil {
		return nil, err
	}
	if _, _, err := cfg.Validate(""); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &armDiscovery{
		Named:     conf.ResourceName().AsNamed(),
		logger:    logger,
		listPorts: enumerateSerialPorts,
		scan: func(ctx context.Context, port string) ([]int, error) {
			return ScanServos(ctx, port, cfg.Baudrate, timeout)
		},
		dataDir: moduleDataDir(),
	}, nil
}

// DiscoverResources scans serial ports for a complete arm and proposes an arm-state sensor per port.
func (dis *armDiscovery) DiscoverResources(ctx context.Context, extra map[string]any) ([]resource.Config, error) {
	dis.logger.Info("Starting robot arm discovery")

	allPorts := dis.listPorts()
	dis.logger.Debugf("Found %d total serial ports", len(allPorts))

	candidates := filterCandidatePorts(allPorts)
	dis.logger.Debugf("Filtered to %d candidate ports", len(candidates))

	var allConfigs []resource.Config
	for _, portPath := range candidates {
		select {
		case <-ctx.Done():
			dis.logger.Info("Discovery cancelled")
			return allConfigs, ctx.Err()
		default:
		}

		if cfg, ok := dis.discoverPort(ctx, portPath); ok {
			allConfigs = append(allConfigs, cfg)
		}
	}

	if len(allConfigs) == 0 {
		dis.logger.Info("No robot arms discovered")
	} else {
		dis.logger.Infof("Discovered %d arm-state configurations", len(allConfigs))
	}
	return allConfigs, nil
}

func (dis *armDiscovery) discoverPort(ctx context.Context, portPath string) (resource.Config, bool) {
	dis.logger.Debugf("Checking port %s", portPath)

	ids, err := dis.scan(ctx, portPath)
	if err != nil {
		dis.logger.Debugf("Failed to scan %s: %v", portPath, err)
		return resource.Config{}, false
	}
	if !hasAllServos(ids) {
		dis.logger.Debugf("Port %s answered with servos %v, need %v", portPath, ids, DefaultServoIDs())
		return resource.Config{}, false
	}

	dis.logger.Infof("Discovered robot arm on %s", portPath)
	portSuffix := extractPortSuffix(portPath)
	return generateConfig(portPath, portSuffix, findPresetsFile(dis.dataDir, portSuffix, dis.logger)), true
}

func hasAllServos(found []int) bool {
	present := make(map[int]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range DefaultServoIDs() {
		if !present[id] {
			return false
		}
	}
	return true
}

func generateConfig(portPath, portSuffix, presetsFile string) resource.Config {
	attrs := map[string]interface{}{
		"port": portPath,
	}
	if presetsFile != "" {
		attrs["presets_file"] = presetsFile
	}
	return resource.Config{
		Name:       "robot-arm-" + portSuffix,
		API:        sensor.API,
		Model:      ArmStateModel,
		Attributes: attrs,
	}
}

// ScanServos opens the port and returns the IDs in the arm's range that answer a ping.
func ScanServos(ctx context.Context, portPath string, baudrate int, timeout time.Duration) ([]int, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     portPath,
		BaudRate: baudrate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	found, err := bus.Scan(ctx, 1, JointCount+1)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(found))
	for _, s := range found {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// filterCandidatePorts filters serial ports by platform-specific naming patterns
func filterCandidatePorts(ports []string) []string {
	candidates := []string{}
	for _, port := range ports {
		if isCandidatePort(port) {
			candidates = append(candidates, port)
		}
	}
	return candidates
}

// isCandidatePort checks if a port looks like a USB serial adapter
func isCandidatePort(port string) bool {
	// Linux: /dev/ttyUSB*, /dev/ttyACM*
	if strings.HasPrefix(port, "/dev/ttyUSB") || strings.HasPrefix(port, "/dev/ttyACM") {
		return true
	}
	// macOS: /dev/tty.usbmodem*, /dev/tty.usbserial*, /dev/cu.usbmodem*, /dev/cu.usbserial*
	if strings.HasPrefix(port, "/dev/tty.usbmodem") || strings.HasPrefix(port, "/dev/tty.usbserial") || strings.HasPrefix(port, "/dev/cu.usbmodem") || strings.HasPrefix(port, "/dev/cu.usbserial") {
		return true
	}
	// Windows: COM*
	return strings.HasPrefix(port, "COM")
}

// extractPortSuffix extracts a friendly suffix from port path for naming
// /dev/ttyUSB0 -> "ttyUSB0"
// COM3 -> "COM3"
// /dev/tty.usbmodem123 -> "usbmodem123"
func extractPortSuffix(portPath string) string {
	base := filepath.Base(portPath)

	if strings.HasPrefix(base, "tty.usb") {
		return strings.TrimPrefix(base, "tty.")
	}
	if strings.HasPrefix(base, "cu.usb") {
		return strings.TrimPrefix(base, "cu.")
	}
	return base
}

func moduleDataDir() string {
	if dir := os.Getenv("VIAM_MODULE_DATA"); dir != "" {
		return dir
	}
	return "/tmp"
}

// findPresetsFile looks for a port-specific presets file, then the shared one.
// Returns just the filename or empty string if none exists.
func findPresetsFile(dataDir, portSuffix string, logger logging.Logger) string {
	portSpecific := portSuffix + "_presets.json"
	if _, err := os.Stat(filepath.Join(dataDir, portSpecific)); err == nil {
		logger.Debugf("Found port-specific presets file: %s", portSpecific)
		return portSpecific
	}

	if _, err := os.Stat(filepath.Join(dataDir, defaultPresetsFile)); err == nil {
		logger.Debugf("Found default presets file: %s", defaultPresetsFile)
		return defaultPresetsFile
	}

	logger.Debug("No presets file found")
	return ""
}

// CandidatePorts lists the serial ports that look like USB servo adapters.
func CandidatePorts() []string {
	return filterCandidatePorts(enumerateSerialPorts())
}

// enumerateSerialPorts returns a list of all serial ports on the system
func enumerateSerialPorts() []string {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return []string{}
	}

	var portPaths []string
	for _, port := range ports {
		portPaths = append(portPaths, port.Name)
	}
	return portPaths
}
