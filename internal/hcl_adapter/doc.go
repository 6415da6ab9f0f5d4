// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hcl_adapter loads provisioning grids written in HCL into a
// config.Model.
//
// A grid is made of these top-level blocks:
//
//	resource "cloud_function" "tts" {
//	  project = resource.project.main.project_id
//	  runtime = "nodejs20"
//	  depends_on = [gate.propagation]
//	}
//
//	gate "propagation" {
//	  depends_on   = [resource.service.translate]
//	  min_duration = "30s"
//	}
//
//	value "settings" { region = "us-central1" }
//	composite "api" { url = resource.api_gateway.gw.url }
//	output "gateway_url" { value = resource.api_gateway.gw.url }
//
// References use `resource.<type>.<name>.<key>` for resources and
// `<gate|value|composite>.<name>.<key>` for the other kinds. An attribute
// that is exactly one reference binds the referenced value as is; any other
// expression that mentions references is evaluated once they are bound.
package hcl_adapter
