// Package story defines the storybook documents and story-creation forms
// that the regeneration packages read, cache and compare.
//
// Documents are owned by an external storage collaborator. The types here
// only describe their shape; helpers return copies rather than mutating the
// caller's values.
package story
