package controller

// Linux input event types.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvAbs uint16 = 0x03
)

// Gamepad button codes (input-event-codes.h). The names follow the
// Nintendo Switch Pro controller layout this service ships with.
const (
	BtnSouth  uint16 = 0x130 // A
	BtnEast   uint16 = 0x131 // B
	BtnNorth  uint16 = 0x133 // X
	BtnWest   uint16 = 0x134 // Y
	BtnTL     uint16 = 0x136 // L
	BtnTR     uint16 = 0x137 // R
	BtnTL2    uint16 = 0x138 // ZL
	BtnTR2    uint16 = 0x139 // ZR
	BtnSelect uint16 = 0x13a // minus
	BtnStart  uint16 = 0x13b // plus
	BtnMode   uint16 = 0x13c // home
	BtnThumbL uint16 = 0x13d // capture
)

// Absolute axis codes.
const (
	AbsX     uint16 = 0x00
	AbsY     uint16 = 0x01
	AbsRX    uint16 = 0x03
	AbsRY    uint16 = 0x04
	AbsHat0X uint16 = 0x10
	AbsHat0Y uint16 = 0x11
)
