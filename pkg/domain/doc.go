package domain

// domain package contains the Domain Models and Interfaces for the Poddle control plane.
//
// `domain/TOPIC.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/types.go` contains the `Deployment` entity, and
// `domain/command.go` the command envelope carried over the broker.
//
// `domain/ENTITY` directory contains the "physical" representation of the domain entities,
// in the RDB or Kubernetes(k8s).
// For example, `domain/deployment/db` contains the database expression of the deployment entity,
// and `domain/deployment/k8s` contains the Kubernetes expression of.
//
// `domain/ENTITY/db/interface.go` exposes the client interface to handle the domain entity in DB/k8s.
//
// # Entities
//
// Core entities in the domain are:
//
// - `deployment`: A user workload managed by Poddle.
// In k8s, a deployment is represented by a bundle of Deployment + Service + Ingress
// (+ a Secret projected from the vault).
// The provisioner applies the bundle when commands arrive, and the reconcile loop
// compares the replica counts observed in the cluster against the desired state
// to derive the deployment status.
//
// - `billing`: Account balances and the transaction ledger.
// The accrual loop charges each active deployment once per clock-hour window for
// the resources it reserves, and suspends the deployments of users whose balance
// has gone negative.
//
// - `status`: Classification of replica observations into deployment statuses
// (starting, running, degraded, updating, unhealthy, suspended).
//
// And others:
//
// - `command`: Envelope and payloads for lifecycle commands
// (create/update/delete/scale/suspend/resume) consumed from the broker.
//
// - `metrics`: Resource usage samples scraped from Prometheus,
// cached in Redis per deployment and per pod.
