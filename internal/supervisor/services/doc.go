// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package services provides suture.Service adapters for the process
// components: the HTTP server, the NATS interaction consumer, and
// periodic storage janitors.
package services
