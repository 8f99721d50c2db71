// Package checkout executes single instances of the create cart, add item,
// checkout workflow and classifies each into an Outcome.
//
// Every instance runs on its own httpclient.Session so load balancer affinity
// cookies issued at cart creation are presented on the two follow-up calls.
// The three requests short-circuit: the first failed step decides the tag and
// later steps are never sent.
package checkout
