package sim

import (
	"strconv"
	"strings"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot separated hierarchy, such as "NeuroTrack.Session.Sampler".
// Every element must be non-empty, start with a capital letter and must not
// contain underscores, dashes or quotes. Elements in a series use square
// brackets, as in "Channel[2]".
func NameMustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("Name " + name + " is not valid: " + r.(string))
		}
	}()

	for _, token := range strings.Split(name, ".") {
		tokenMustBeValid(token)
	}
}

func tokenMustBeValid(token string) {
	bracketMustMatch(token)

	elemName, indices, _ := strings.Cut(token, "[")
	if elemName == "" {
		panic("Name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-"} {
		if strings.Contains(elemName, c) {
			panic("Name element must not contain " + c)
		}
	}

	if elemName[0] < 'A' || elemName[0] > 'Z' {
		panic("Name element must start with a capital letter")
	}

	for _, index := range strings.Split(indices, "[") {
		if index == "" {
			continue
		}

		_, err := strconv.Atoi(strings.TrimSuffix(index, "]"))
		if err != nil {
			panic("Name index must be integer")
		}
	}
}

func bracketMustMatch(token string) {
	open := 0
	for _, c := range token {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				panic("Name bracket must match")
			}
		}
	}

	if open != 0 {
		panic("Name bracket must match")
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}
