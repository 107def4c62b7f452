// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

/*
Package supervisor provides Suture-based process supervision.

The tree is organized into three layers:
  - data: storage janitors (cache GC, interaction pruning)
  - messaging: the NATS interaction consumer
  - api: the HTTP server

This structure provides failure isolation: a crash in the messaging
layer does not affect the API layer's ability to serve requests.
*/
package supervisor
