package server

// @title Attestation API
// @version 1.0
// @description Identity attestation API. Wallets sign in, create attestations backed by data-source checks and zero-knowledge proofs, and ask the ledger to verify them.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
