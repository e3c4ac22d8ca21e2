// Package obs builds the process logger.
package obs
