// Package labels provides the labels k8stack stamps on the objects it
// renders, so that everything a stack or component owns can be selected.
package labels
