// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*

logstress emits two distinct kinds of logging:

1. Internal logs: the harness' and forwarder's own operational messages, written with logrus to stderr
2. Records: the synthetic or forwarded lines written into a log buffer through a logd.Writer

Only internal logs are configured here. Records never go through logrus, so the load profile is
independent of the internal log level.

*/
package logging
