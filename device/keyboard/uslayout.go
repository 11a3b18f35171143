package keyboard

// USQwerty is the standard US QWERTY PS/2 scancode set 1 mapping, lifted
// byte-for-byte from the original driver's scancode_map/scancode_map_shift
// tables. It is supplied here as a concrete Table value rather than baked
// into Buffer's decoding logic, keeping the actual wire mapping an
// injectable value the way the rest of this package treats it — callers
// that want a different layout construct their own Table instead.
var USQwerty = Table{
	Normal: [128]byte{
		0, 27, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=', '\b',
		'\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', '\n',
		0, // left control
		'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`', 0, '\\',
		'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/', 0, '*', 0, ' ', 0,
		// remaining entries (F-keys, numpad, etc.) are left as 0: "no
		// printable character", matching the original's unhandled tail.
	},
	Shift: [128]byte{
		0, 27, '!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '_', '+', '\b',
		'\t', 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '{', '}', '\n',
		0,
		'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':', '"', '~', 0, '|',
		'Z', 'X', 'C', 'V', 'B', 'N', 'M', '<', '>', '?', 0, '*', 0, ' ', 0,
	},
}
