package consts

// Mode_Debug gates assert.T and other debug-only checks. Flip to false for
// a release build so the checks (and their format-string evaluation) are
// compiled out.
const Mode_Debug = true
