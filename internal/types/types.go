package types

// Track identifies one side of the differential drive.
type Track string

const (
	TrackLeft  Track = "left"
	TrackRight Track = "right"
)

// Direction is the commanded rotation of a track motor.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionStop     Direction = "stop"
)

// MotorCommand is one per-track command produced each control cycle.
// Magnitude is the PWM duty fraction in [0,1]; it is never negative,
// direction carries the sign.
type MotorCommand struct {
	Track     Track
	Direction Direction
	Magnitude float64
}

// DriveState is the top-level mode of the drive service.
type DriveState string

const (
	StateInit          DriveState = "init"
	StateStandby       DriveState = "stand-by"
	StateDrive         DriveState = "drive"
	StateEmergencyStop DriveState = "emergency-stop"
	StateShuttingDown  DriveState = "shutting-down"
)
