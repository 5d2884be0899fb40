// Package consistency keeps a story's protagonist recognizable across
// regenerations.
//
// A Tracker holds one Profile per story, built from the story's free-text
// character description by an Extractor. Before a story is regenerated with
// changed parameters, CheckConsistency scores how far the proposal drifts
// from the profile. GenerateConsistentDescription pins tracked appearance
// onto a fresh story-creation form.
//
// Trait extraction is heuristic. PatternExtractor recognizes a fixed phrase
// grammar:
//
//	has|with <color> hair          hair color
//	has|with|and <color> eyes      eye color
//	favorite color is <color>      favorite color
//	has freckles|dimples|glasses|braces, wears glasses|braces|a hat,
//	with curly|straight|wavy hair  additional features
//	is <adjective>[, <adjective>][ and <adjective>]  personality adjectives
//	loves <hobby>[, <hobby>][ and <hobby>]           "loves <hobby>" traits
//	prefers|loves|likes being|staying|playing indoors  "indoors"
//
// Describe produces sentences in the same grammar, so a synthesized
// description extracts back to the traits it was built from.
package consistency
