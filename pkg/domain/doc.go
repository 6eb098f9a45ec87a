/*
Package domain contains the configuration data model edited by the Studio.

Everything here is declarative data consumed by an external decision engine. Nothing in
this package executes a procedure or fires an automation; it only describes them.

# Key Entities

  - Automation: a candidate outbound message (text plus buttons) with priority and cooldown.
  - Procedure: an ordered sequence of gating Steps, each with a fallback action.
  - IntakeConfig: thresholds and keyword anchors for the backend message classifier.
  - Snapshot: the backend's read-only belief state about a lead, used by the simulator.
  - Plan and LogEvent: what the backend returns when a message is simulated.
*/
package domain
