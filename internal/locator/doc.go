// Package locator finds labeled sections in a PUG View record tree.
//
// PubChem does not guarantee the order or presence of sections, so every
// lookup is by TOCHeading rather than by index. The one exception is At,
// which the Computed Descriptors block needs because its children are read
// by fixed position.
//
// All functions are pure: they never mutate the tree and never return errors.
// An absent label is reported with ok=false.
package locator
