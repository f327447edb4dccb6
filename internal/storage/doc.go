/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements project persistence and the thumbnail cache.
// Project files are flat JSON objects validated against an embedded schema and written transactionally
// with timestamped backups in a backups/ folder next to the file.
// Thumbnails for the background gallery live in <backgrounds>/.mojist/thumbs.sqlite, which is disposable
// and rebuilt when found corrupt.
package storage
