//
// Package irt calibrates a Rasch model from predicted item scores:
// predictions are rescaled into [0,1] pseudo-responses, person abilities
// and item difficulties are estimated by joint maximum likelihood, and
// item fit and separation reliability are derived from the result.
//
package irt
