//
// web service that accepts predicted item scores for a group of
// students - typically produced by a regression model trained on
// student and item features - and calibrates a Rasch model from them.
// The service reports person abilities, item difficulties, item fit
// statistics and separation reliability so that predicted results
// can be placed on a common logit scale and reviewed in aggregate.
//
package otfcalibrate
