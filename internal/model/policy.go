package model

// PolicyVersion is the IAM policy language version used for every document
// this service writes.
const PolicyVersion = "2012-10-17"

// Statement is a single IAM policy statement.
type Statement struct {
	Effect    string   `json:"Effect"`
	Actions   []string `json:"Action"`
	Resources []string `json:"Resource"`
}

// FederatedPermissionsPolicyDocument is the per-owner inline policy whose
// resource list tracks the instance ARNs the owner may open sessions on.
// Created on the owner's first workspace, mutated on every create, replace
// and delete, never removed.
type FederatedPermissionsPolicyDocument struct {
	Version    string      `json:"Version"`
	Statements []Statement `json:"Statement"`
}

// SessionActions are the session-manager actions granted to every federated
// role.
var SessionActions = []string{
	"ssm:TerminateSession",
	"ssm:StartSession",
	"ssm:GetConnectionStatus",
	"ssm:DescribeSessions",
}
