// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package energy implements the energy queries of a house: which devices
// meter power, how a time range is split into intervals, the peak power
// consumption over those intervals and the largest inside/outside
// temperature difference.
//
// Every function is synchronous and keeps its working state local to the
// call, so concurrent requests never share anything.
package energy
