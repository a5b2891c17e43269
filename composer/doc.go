// Package composer runs the whole pipeline: fetch a remote unit, analyse it, install what it
// imports, add the imports its free type names need, load the target function, sample its
// structured parameters, and finally wire it into a single-node agent graph driven by a prompt.
//
// The steps run once, in order, and never go back. Session configuration is validated before
// the first step, so a missing API key fails without any network traffic.
package composer
