// Package hcloud looks up the Hetzner Cloud resources that catalog
// components expect to exist: the private network of the cloud controller
// manager and the floating IPs handed to the floating IP controller.
package hcloud
