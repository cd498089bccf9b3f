// Package units converts between the postal units the two providers
// disagree on: EasyPost quotes in ounces, ShipStation in grams.
package units

// gramsPerOunce is the exact avoirdupois conversion factor.
const gramsPerOunce = 28.349523125

// OuncesToGrams converts a weight in ounces to grams.
func OuncesToGrams(oz float64) float64 {
	return oz * gramsPerOunce
}

// GramsToOunces converts a weight in grams to ounces.
func GramsToOunces(g float64) float64 {
	return g / gramsPerOunce
}
