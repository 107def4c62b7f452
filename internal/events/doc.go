// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package events provides the interaction event log: a DuckDB-backed
// store of user/product interactions, and a NATS consumer that ingests
// interaction events published by the storefront.
//
// The recommendation core reads the log two ways: the exclusion tracker
// excludes products a user already interacted with, and the personalized
// fallback derives the user's favorite categories from it. Both reads
// are best-effort; a missing or broken log degrades to cold-start
// behavior, never to request failures.
package events
