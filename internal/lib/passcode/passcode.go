// Package passcode generates the short recovery codes mailed to users.
//
// A code is a UX artifact, not a cryptographic secret: it is typed by hand,
// lives for minutes and is only ever compared against its bcrypt hash. The
// composition is fixed at 2 digits and 3 uppercase letters, shuffled so the
// position does not reveal which characters are which.
package passcode

import "math/rand"

const (
	digits  = "0123456789"
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	numDigits  = 2
	numLetters = 3

	// Length of every generated code.
	Length = numDigits + numLetters
)

func Generate() string {
	code := make([]byte, 0, Length)

	for i := 0; i < numDigits; i++ {
		code = append(code, digits[rand.Intn(len(digits))])
	}
	for i := 0; i < numLetters; i++ {
		code = append(code, letters[rand.Intn(len(letters))])
	}

	rand.Shuffle(len(code), func(i, j int) {
		code[i], code[j] = code[j], code[i]
	})

	return string(code)
}
