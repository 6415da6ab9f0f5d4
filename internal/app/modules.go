// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"github.com/vk/provisiongrid/internal/registry"
	"github.com/vk/provisiongrid/modules/echo"
	"github.com/vk/provisiongrid/modules/gcs"
	"github.com/vk/provisiongrid/modules/httpapi"
	"github.com/vk/provisiongrid/modules/random"
)

// coreModules returns the resource modules compiled into the binary. Each
// call returns fresh instances, so apps never share module state.
func coreModules() []registry.Module {
	return []registry.Module{
		&echo.Module{},
		&random.Module{},
		&httpapi.Module{},
		&gcs.Module{},
	}
}
