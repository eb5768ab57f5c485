package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnumPrefix is the serialized form of every profession enumerator; the
// stored value is EnumPrefix followed by the enumerator number.
const EnumPrefix = "Enum_Professions::NewEnumerator"

// Professions maps enumerator numbers to display names. The numbering has a
// gap: enumerator 11 does not exist in the game enum.
var Professions = map[int]string{
	0:  "Unemployed",
	1:  "AmateurBoxer",
	2:  "Farmer",
	3:  "Mechanic",
	4:  "JuniorBiodiesel Researcher",
	5:  "EmergencyMedicalTechnician",
	6:  "ApprenticeGunsmith",
	7:  "FoodServiceWorker",
	8:  "SundayFisherman",
	9:  "CarSalesman",
	10: "Outdoorsman",
	12: "Chemist",
	13: "EMT",
	14: "MilitaryVet",
	15: "Thief",
	16: "FireFighter",
	17: "ElectricalEngineer",
}

// ProfessionName returns the display name for an enumerator number.
func ProfessionName(num int) string {
	if name, ok := Professions[num]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", num)
}

// ProfessionByName resolves a display name, case-insensitive.
func ProfessionByName(name string) (int, bool) {
	want := strings.ToLower(name)
	for num, n := range Professions {
		if strings.ToLower(n) == want {
			return num, true
		}
	}
	return 0, false
}

// EnumValue builds the serialized enum string for an enumerator number.
func EnumValue(num int) string {
	return EnumPrefix + strconv.Itoa(num)
}

// ParseEnumValue extracts the enumerator number from a serialized enum
// string.
func ParseEnumValue(s string) (int, error) {
	rest, ok := strings.CutPrefix(s, EnumPrefix)
	if !ok {
		return 0, fmt.Errorf("%q does not start with %q", s, EnumPrefix)
	}
	num, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%q has no enumerator number: %w", s, err)
	}
	return num, nil
}
