package relay

import "time"

// RobotID identifies a robot. Any string is accepted; there is no registry.
type RobotID string

// Frame is the most recent JPEG uploaded by a robot. Data is not validated.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time // when the upload finished, UTC
}

// RobotState is everything the relay knows about one robot id.
type RobotState struct {
	ID        RobotID
	Frame     *Frame // nil until the first upload
	Streaming bool   // advisory; robots poll it, the relay never enforces it
}
