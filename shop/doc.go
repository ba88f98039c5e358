// Package shop provides the customer-service tool set used by the reference
// agents: refunds, notifications, orders and product information.
//
// Tools are built from an explicit Services value; nothing is read from
// package level state. Lookup misses (unknown user, purchase or product) are
// reported as core.TextResult with Miss set. Collaborator failures are
// returned as errors and surface as EXECUTION_ERROR tool errors.
package shop
